package kinto

import (
	"fmt"
	"strconv"
	"strings"
)

func parseVersion(v string) ([]int, error) {
	parts := strings.Split(strings.TrimSpace(v), ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q", v)
		}
		out = append(out, n)
	}
	return out, nil
}

func compareVersions(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

// CheckVersion fails unless min <= version < max. An empty max means no upper bound.
func CheckVersion(version, min, max string) error {
	v, err := parseVersion(version)
	if err != nil {
		return err
	}
	lo, err := parseVersion(min)
	if err != nil {
		return err
	}
	if compareVersions(v, lo) < 0 {
		return fmt.Errorf("version %s is lower than the minimum required %s", version, min)
	}
	if max == "" {
		return nil
	}
	hi, err := parseVersion(max)
	if err != nil {
		return err
	}
	if compareVersions(v, hi) >= 0 {
		return fmt.Errorf("version %s is not lower than %s", version, max)
	}
	return nil
}
