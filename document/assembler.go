package document

import (
	"fmt"
	"sort"
	"time"

	"video2doc/errors"
	"video2doc/models"
)

// Meta is the document-level metadata attached during assembly.
type Meta struct {
	Title          string
	SourceURI      string
	SourceLanguage string
	TargetLanguage string
}

// Assembler merges revised segments into a single ordered document.
// Assembly is deterministic: the same segment set and metadata always
// yield an identical document.
type Assembler struct {
	// Now supplies the generation timestamp; fixed in tests.
	Now func() time.Time
}

func NewAssembler() *Assembler {
	return &Assembler{Now: time.Now}
}

// Assemble validates that the revised segments cover exactly the index set
// 0..N-1 with no duplication or gaps, then orders them canonically. Failed
// segments are kept, not dropped; the marker policy applies at render time.
func (a *Assembler) Assemble(meta Meta, revised []models.RevisedSegment) (*models.Document, error) {
	const op = "Assembler.Assemble"

	if len(revised) == 0 {
		return nil, errors.Assembly(op, nil, "no segments to assemble")
	}

	ordered := make([]models.RevisedSegment, len(revised))
	copy(ordered, revised)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	for i, seg := range ordered {
		if seg.Index != i {
			return nil, errors.Assembly(op, nil,
				fmt.Sprintf("segment index set is not contiguous: expected %d, got %d", i, seg.Index))
		}
	}

	return &models.Document{
		Title:          meta.Title,
		SourceURI:      meta.SourceURI,
		SourceLanguage: meta.SourceLanguage,
		TargetLanguage: meta.TargetLanguage,
		GeneratedAt:    a.Now(),
		Segments:       ordered,
	}, nil
}
