// Package roomstock polls the external room-stock feed and upserts rooms into the registry.
package roomstock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/parse"
	"hostel-allocation-backend/internal/registry"
)

// Sink receives the converted room stock.
type Sink interface {
	ImportRooms(ctx context.Context, stock []registry.Stock) (created, updated int, err error)
}

// Service runs the import loop.
type Service struct {
	cfg    config.RoomStockConfig
	sink   Sink
	client *http.Client
	log    *zap.Logger
}

// NewService creates an importer. An invalid proxy URL is logged and ignored.
func NewService(cfg config.RoomStockConfig, sink Sink, log *zap.Logger) *Service {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn("invalid proxy URL, importer will not use a proxy",
				zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg:  cfg,
		sink: sink,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		log: log,
	}
}

// Run imports once immediately and then every configured interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("room-stock importer is disabled")
		return
	}
	s.log.Info("starting room-stock importer", zap.Duration("interval", s.cfg.Interval))

	s.importAndLog(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("room-stock importer shutting down")
			return
		case <-timer.C:
			s.importAndLog(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) importAndLog(ctx context.Context) {
	res, err := s.ImportOnce(ctx)
	if err != nil {
		s.log.Error("room-stock import failed", zap.Error(err))
		return
	}
	s.log.Info("room-stock import finished",
		zap.Int("fetched", res.Fetched),
		zap.Int("skipped", res.Skipped),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated))
}

// Result summarises one import.
type Result struct {
	Fetched int
	Skipped int
	Created int
	Updated int
}

// ImportOnce pages through the feed and upserts what it got. A fetch error after some
// pages still imports the pages already read; rooms are never deleted.
func (s *Service) ImportOnce(ctx context.Context) (Result, error) {
	var (
		items    []Item
		fetchErr error
	)
	total := 1
	pageSize := s.cfg.Request.PageSize
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			s.log.Warn("failed to fetch room-stock page", zap.Int("page", page), zap.Error(err))
			fetchErr = err
			break
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		items = append(items, resp.Data.Items...)
		s.log.Debug("fetched room-stock page", zap.Int("page", page), zap.Int("items_so_far", len(items)), zap.Int("total", total))
	}

	if fetchErr != nil && len(items) == 0 {
		return Result{}, fmt.Errorf("no rooms fetched: %w", fetchErr)
	}

	res := Result{Fetched: len(items)}
	stock := make([]registry.Stock, 0, len(items))
	for _, item := range items {
		st, err := ToStock(item)
		if err != nil {
			s.log.Warn("skipping room-stock item", zap.String("room_number", item.RoomNumber), zap.Error(err))
			res.Skipped++
			continue
		}
		stock = append(stock, st)
	}

	created, updated, err := s.sink.ImportRooms(ctx, stock)
	if err != nil {
		return res, fmt.Errorf("failed to upsert rooms: %w", err)
	}
	res.Created, res.Updated = created, updated
	return res, nil
}

// ToStock converts a feed item into registry stock.
func ToStock(item Item) (registry.Stock, error) {
	rt, err := model.ParseRoomType(item.Type)
	if err != nil {
		return registry.Stock{}, err
	}

	st := registry.Stock{
		RoomNumber: item.RoomNumber,
		Capacity:   item.Capacity,
		Block:      item.Block,
		Type:       rt,
	}
	if st.Capacity == 0 {
		st.Capacity = capacityOf(rt)
	}

	if item.Floor != "" {
		if f, err := strconv.Atoi(item.Floor); err == nil {
			st.Floor = f
		}
	}
	if st.Block == "" || st.Floor == 0 {
		parsed, err := parse.ParseRoomNumber(item.RoomNumber, item.Floor)
		if err != nil {
			return registry.Stock{}, err
		}
		if st.Block == "" {
			st.Block = parsed.Block
		}
		if st.Floor == 0 {
			st.Floor = parsed.Floor
		}
	}

	if item.Status != "" {
		status, err := model.ParseRoomStatus(item.Status)
		if err != nil {
			return registry.Stock{}, err
		}
		if status != model.RoomFull {
			st.Status = status
		}
	}
	return st, nil
}

func capacityOf(rt model.RoomType) int {
	for i, t := range model.RoomTypes {
		if t == rt {
			return i + 1
		}
	}
	return 0
}

func (s *Service) fetchPage(ctx context.Context, page int) (*APIResponse, error) {
	payload := make(map[string]any)
	for k, v := range s.cfg.Request.Payload {
		payload[k] = v
	}
	payload["page"] = page
	payload["pageSize"] = s.cfg.Request.PageSize

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Request.URL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.cfg.Request.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	if apiResp.Code != 0 {
		return nil, fmt.Errorf("feed returned non-zero application code: %d", apiResp.Code)
	}
	return &apiResp, nil
}
