package scanner

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

// Band is one registry entry. Codes are the short prefixes used in taper
// filenames such as "gd1977-05-08d1t01".
type Band struct {
	Name  string
	Codes []string
}

var builtinBands = []Band{
	{"Grateful Dead", []string{"gd"}},
	{"Jerry Garcia Band", []string{"jg", "jgb"}},
	{"Phish", []string{"ph", "phish"}},
	{"Widespread Panic", []string{"wsp", "panic"}},
	{"moe.", []string{"moe"}},
	{"Sound Tribe Sector 9", []string{"sts9", "s9"}},
	{"Umphrey's McGee", []string{"um", "ump"}},
	{"Disco Biscuits", []string{"bisco", "db"}},
	{"Ween", []string{"ween"}},
	{"Gov't Mule", []string{"mule"}},
	{"Allman Brothers Band", []string{"abband", "abb"}},
	{"Dark Star Orchestra", []string{"dso"}},
	{"Led Zeppelin", []string{"lz", "led"}},
	{"Goose", []string{"goose"}},
	{"Billy Strings", []string{"billy", "bs", "bsco"}},
	{"King Gizzard & the Lizard Wizard", []string{"kg", "kglw"}},
	{"Trey Anastasio Band", []string{"trey", "tab"}},
	{"Lotus", []string{"lotus"}},
	{"Joe Russo's Almost Dead", []string{"jrad"}},
	{"String Cheese Incident", []string{"sci"}},
	{"Leftover Salmon", []string{"lmg", "lemon"}},
	{"Medeski Martin & Wood", []string{"mmw"}},
}

// BandRegistry resolves band codes and directory names to canonical band
// names. It is immutable once built.
type BandRegistry struct {
	fold   cases.Caser
	codes  map[string]string
	names  map[string]string
	prefix []string // folded names, longest first
}

// NewBandRegistry builds the registry from the built-in bands plus extra
// entries of the form "Name=code1,code2". A name that is already known
// gains the extra codes.
func NewBandRegistry(extra []string) (*BandRegistry, error) {
	r := &BandRegistry{
		fold:  cases.Fold(),
		codes: make(map[string]string),
		names: make(map[string]string),
	}
	for _, b := range builtinBands {
		r.add(b)
	}
	title := cases.Title(language.English)
	for _, entry := range extra {
		name, codes, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Newf("invalid band entry %q, want Name=code1,code2", entry).
				Component("scanner").
				Category(errors.CategoryConfiguration).
				Build()
		}
		if canonical, known := r.names[r.fold.String(name)]; known {
			name = canonical
		} else if strings.ToLower(name) == name {
			name = title.String(name)
		}
		b := Band{Name: name}
		for _, c := range strings.Split(codes, ",") {
			if c = strings.TrimSpace(c); c != "" {
				b.Codes = append(b.Codes, c)
			}
		}
		r.add(b)
	}
	return r, nil
}

func (r *BandRegistry) add(b Band) {
	key := r.fold.String(b.Name)
	if _, ok := r.names[key]; !ok {
		r.names[key] = b.Name
		r.prefix = append(r.prefix, key)
		// longest first so "allman brothers band" beats a shorter prefix
		for i := len(r.prefix) - 1; i > 0 && len(r.prefix[i]) > len(r.prefix[i-1]); i-- {
			r.prefix[i], r.prefix[i-1] = r.prefix[i-1], r.prefix[i]
		}
	}
	for _, c := range b.Codes {
		r.codes[r.fold.String(c)] = b.Name
	}
}

// LookupCode returns the band for a short code.
func (r *BandRegistry) LookupCode(code string) (string, bool) {
	name, ok := r.codes[r.fold.String(code)]
	return name, ok
}

// LookupName matches a directory name against the known band names. The
// directory may carry a suffix, as in "Grateful Dead - 1977".
func (r *BandRegistry) LookupName(dir string) (string, bool) {
	key := r.fold.String(strings.TrimSpace(dir))
	for _, p := range r.prefix {
		if strings.HasPrefix(key, p) {
			return r.names[p], true
		}
	}
	return "", false
}
