package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// listSnapshots reads snapshot timestamps from their file names, so ages do
// not depend on file mtimes surviving a copy.
func listSnapshots(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		ts, err := time.Parse(timeLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
		if err != nil {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Path: filepath.Join(dir, name), Timestamp: ts, Size: fi.Size()})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// expired picks the snapshots that fall outside the retention policy.
// snapshots must be sorted newest first.
func expired(snapshots []Info, policy Retention, now time.Time) []Info {
	var hourly, daily, weekly, monthly, drop []Info
	for _, b := range snapshots {
		switch age := now.Sub(b.Timestamp); {
		case age < 24*time.Hour:
			hourly = append(hourly, b)
		case age < 7*24*time.Hour:
			daily = append(daily, b)
		case age < 30*24*time.Hour:
			weekly = append(weekly, b)
		case age < 365*24*time.Hour:
			monthly = append(monthly, b)
		default:
			drop = append(drop, b)
		}
	}

	overflow := func(tier []Info, keep int) []Info {
		if keep < 0 {
			keep = 0
		}
		if len(tier) <= keep {
			return nil
		}
		return tier[keep:]
	}
	drop = append(drop, overflow(hourly, policy.Hourly)...)
	drop = append(drop, overflow(daily, policy.Daily)...)
	drop = append(drop, overflow(weekly, policy.Weekly)...)
	drop = append(drop, overflow(monthly, policy.Monthly)...)
	return drop
}

func (s *Service) applyRetention() (int, error) {
	snapshots, err := listSnapshots(s.dir)
	if err != nil {
		return 0, err
	}

	var errs []error
	removed := 0
	for _, b := range expired(snapshots, s.retention, s.now()) {
		if err := os.Remove(b.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if len(errs) > 0 {
		return removed, fmt.Errorf("failed to delete some snapshots: %w", errors.Join(errs...))
	}
	return removed, nil
}
