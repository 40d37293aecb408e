package analysis

import (
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progress draws a bar on stderr. The zero value and a nil pointer are
// silent so tests and quiet runs pay nothing.
type progress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgress(enabled bool, name string, total int) *progress {
	if !enabled {
		return nil
	}
	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name+": "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)
	return &progress{p: p, bar: bar}
}

func (pr *progress) increment() {
	if pr != nil {
		pr.bar.Increment()
	}
}

// abort stops the bar early, leaving it on screen.
func (pr *progress) abort() {
	if pr != nil {
		pr.bar.Abort(false)
	}
}

func (pr *progress) wait() {
	if pr != nil {
		pr.p.Wait()
	}
}
