package scanner

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ParsedPath is the metadata recoverable from a file's path.
type ParsedPath struct {
	Band  *string
	Date  *string // YYYY-MM-DD
	Disc  *int
	Track *int
	Title *string
}

var (
	// gd1977-05-08d1t01
	compactRe = regexp.MustCompile(`(?i)^([a-z]+[0-9]?)(\d{4})-(\d{2})-(\d{2})(?:d(\d+))?(?:t(\d+))?$`)
	// d1t01 - Scarlet Begonias
	discTrackRe = regexp.MustCompile(`(?i)^(?:d(\d+))?t(\d+)(?:\s*[-–]\s*(.+))?$`)
	// 01 - Dark Star, 01. Dark Star
	trackTitleRe = regexp.MustCompile(`^(\d{1,3})\s*[.\-–]\s*(.+)$`)
	dateRe       = regexp.MustCompile(`(\d{4})[./-](\d{2})[./-](\d{2})`)
)

// ParsePath extracts band, date, disc, track and title from path, trying
// the compact taper form first, then directory conventions.
func (r *BandRegistry) ParsePath(path string) ParsedPath {
	var p ParsedPath
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if m := compactRe.FindStringSubmatch(stem); m != nil {
		if band, ok := r.LookupCode(m[1]); ok {
			p.Band = &band
		}
		p.Date = date(m[2], m[3], m[4])
		p.Disc = atoi(m[5])
		p.Track = atoi(m[6])
		return p
	}

	dirs := strings.Split(filepath.ToSlash(filepath.Dir(path)), "/")
	for _, d := range dirs {
		if band, ok := r.LookupCode(d); ok {
			p.Band = &band
			break
		}
	}
	if p.Band == nil {
		for _, d := range dirs {
			if band, ok := r.LookupName(d); ok {
				p.Band = &band
				break
			}
		}
	}
	for _, d := range append(dirs, stem) {
		if m := dateRe.FindStringSubmatch(d); m != nil {
			p.Date = date(m[1], m[2], m[3])
			break
		}
	}

	if m := discTrackRe.FindStringSubmatch(stem); m != nil {
		p.Disc = atoi(m[1])
		p.Track = atoi(m[2])
		p.Title = text(m[3])
		return p
	}
	if m := trackTitleRe.FindStringSubmatch(stem); m != nil {
		p.Track = atoi(m[1])
		p.Title = text(m[2])
	}
	return p
}

func date(y, m, d string) *string {
	s := y + "-" + m + "-" + d
	return &s
}

func atoi(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func text(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
