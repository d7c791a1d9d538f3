package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	roomRe  = regexp.MustCompile(`^(?i:block\s*)?([A-Za-z]+)\s*[-#/ ]?\s*(\d+)$`)
	floorRe = regexp.MustCompile(`(?i)^(\d+)\s*(?:F|FL|FLOOR)?$`)
)

// RoomNumber holds the structured parts of a room number such as "B-204".
type RoomNumber struct {
	Block string
	Floor int
	Seq   int
}

// String renders the canonical form, e.g. "B-204".
func (r RoomNumber) String() string {
	if r.Floor == 0 {
		return fmt.Sprintf("%s-%d", r.Block, r.Seq)
	}
	return fmt.Sprintf("%s-%d%02d", r.Block, r.Floor, r.Seq)
}

// ParseRoomNumber splits a raw room number into block, floor and sequence. Three or more
// digits read as floor*100+seq ("B-204" is floor 2, room 4). Shorter numbers carry no
// floor, so floorCode ("3", "3F") is used when given.
func ParseRoomNumber(raw string, floorCode string) (RoomNumber, error) {
	s := strings.Join(strings.Fields(raw), " ")

	m := roomRe.FindStringSubmatch(s)
	if m == nil {
		return RoomNumber{}, fmt.Errorf("unable to parse room number: %q", raw)
	}
	block := strings.ToUpper(m[1])
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return RoomNumber{}, fmt.Errorf("unable to parse room number: %q: %w", raw, err)
	}

	if len(m[2]) >= 3 {
		return RoomNumber{Block: block, Floor: n / 100, Seq: n % 100}, nil
	}

	floor := 0
	if code := strings.TrimSpace(floorCode); code != "" {
		fm := floorRe.FindStringSubmatch(code)
		if fm == nil {
			return RoomNumber{}, fmt.Errorf("unable to parse floor code %q for room %q", floorCode, raw)
		}
		floor, _ = strconv.Atoi(fm[1])
	}
	return RoomNumber{Block: block, Floor: floor, Seq: n}, nil
}
