package diagfmt

import (
	"encoding/json"
	"io"

	"ferry/internal/diag"
	"ferry/internal/source"
)

type jsonLoc struct {
	Path string `json:"path,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

type jsonNote struct {
	Message string `json:"message"`
	jsonLoc
}

type jsonDiag struct {
	Severity string     `json:"severity"`
	Code     string     `json:"code"`
	Message  string     `json:"message"`
	Notes    []jsonNote `json:"notes,omitempty"`
	jsonLoc
}

// JSON renders diagnostics as a machine-readable array.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	items := bag.Items()
	if opts.Max > 0 && len(items) > opts.Max {
		items = items[:opts.Max]
	}

	out := make([]jsonDiag, 0, len(items))
	for _, d := range items {
		jd := jsonDiag{
			Severity: d.Severity.String(),
			Code:     d.Code.String(),
			Message:  d.Message,
			jsonLoc:  locFor(fs, d.Primary, opts.PathMode),
		}
		if opts.IncludeNotes {
			for _, n := range d.Notes {
				jd.Notes = append(jd.Notes, jsonNote{
					Message: n.Msg,
					jsonLoc: locFor(fs, n.Span, opts.PathMode),
				})
			}
		}
		out = append(out, jd)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func locFor(fs *source.FileSet, sp source.Span, mode PathMode) jsonLoc {
	pos, ok := fs.PositionFor(sp)
	if !ok {
		return jsonLoc{}
	}
	return jsonLoc{Path: formatPath(pos.Path, mode), Line: pos.Line, Col: pos.Col}
}
