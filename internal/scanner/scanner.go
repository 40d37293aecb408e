// Package scanner walks library directories and registers audio files as
// tracks, parsing band and show date from each path.
package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/datastore"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
)

// Result counts what a scan did.
type Result struct {
	Scanned  int
	Upserted int
	Skipped  int
	Errors   int
}

// Scanner registers audio files in the datastore.
type Scanner struct {
	store      datastore.Interface
	bands      *BandRegistry
	extensions map[string]struct{}
}

// New creates a scanner for the configured extensions and extra bands.
func New(store datastore.Interface, settings *conf.ScannerSettings) (*Scanner, error) {
	bands, err := NewBandRegistry(settings.Bands)
	if err != nil {
		return nil, err
	}
	exts := settings.Extensions
	if len(exts) == 0 {
		exts = conf.SupportedExtensions
	}
	s := &Scanner{
		store:      store,
		bands:      bands,
		extensions: make(map[string]struct{}, len(exts)),
	}
	for _, e := range exts {
		s.extensions[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	return s, nil
}

// Scan walks each root and upserts every supported file. Files whose size
// and modification time match the stored track are skipped unless force is
// set. Per file failures are counted and logged; a missing root or a
// cancelled context stops the scan.
func (s *Scanner) Scan(ctx context.Context, roots []string, force bool) (Result, error) {
	var res Result
	log := getLogger()

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				log.Warn("skipping unreadable path", logger.String("path", path), logger.Error(err))
				res.Errors++
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() || !s.supported(path) {
				return nil
			}
			res.Scanned++

			skipped, err := s.register(path, d, force)
			switch {
			case err != nil:
				log.Warn("failed to register track", logger.String("path", path), logger.Error(err))
				res.Errors++
			case skipped:
				res.Skipped++
			default:
				res.Upserted++
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			return res, errors.New(err).
				Component("scanner").
				Category(errors.CategoryFileIO).
				Context("root", root).
				Build()
		}
	}

	log.Info("scan complete",
		logger.Int("scanned", res.Scanned),
		logger.Int("upserted", res.Upserted),
		logger.Int("skipped", res.Skipped),
		logger.Int("errors", res.Errors))
	return res, nil
}

func (s *Scanner) supported(path string) bool {
	_, ok := s.extensions[extension(path)]
	return ok
}

func (s *Scanner) register(path string, d fs.DirEntry, force bool) (skipped bool, err error) {
	info, err := d.Info()
	if err != nil {
		return false, errors.New(err).
			Component("scanner").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	modified := strconv.FormatInt(info.ModTime().Unix(), 10)

	if !force {
		unchanged, err := s.store.TrackUnchanged(path, info.Size(), modified)
		if err != nil {
			return false, err
		}
		if unchanged {
			return true, nil
		}
	}

	parsed := s.bands.ParsePath(path)
	track := &datastore.Track{
		FilePath:     path,
		FileSize:     info.Size(),
		FileModified: modified,
		Format:       extension(path),
		Title:        parsed.Title,
		ParsedBand:   parsed.Band,
		ParsedDate:   parsed.Date,
		ParsedTitle:  parsed.Title,
		ParsedDisc:   parsed.Disc,
		ParsedTrack:  parsed.Track,
	}
	if parsed.Band != nil {
		track.Artist = parsed.Band
	}
	_, err = s.store.UpsertTrack(track)
	return false, err
}

func extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
