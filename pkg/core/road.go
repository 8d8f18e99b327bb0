package core

import (
	"strconv"
	"strings"
)

// RoadCode identifies a road. Several centerline segments may share one code.
type RoadCode int

// String returns the decimal form of the code.
func (r RoadCode) String() string {
	return strconv.Itoa(int(r))
}

// ParseRoadCodes parses road codes given as separate values and/or
// comma-separated lists ("1,2", "3"). Blank items are ignored; the result keeps
// the input order and drops repeated codes.
func ParseRoadCodes(values []string) ([]RoadCode, error) {
	var codes []RoadCode
	seen := make(map[RoadCode]bool)

	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			n, err := strconv.Atoi(item)
			if err != nil {
				return nil, Configuration("road codes must be integers, got %q", item)
			}
			code := RoadCode(n)
			if seen[code] {
				continue
			}
			seen[code] = true
			codes = append(codes, code)
		}
	}

	if len(codes) == 0 {
		return nil, Configuration("no road codes given")
	}
	return codes, nil
}
