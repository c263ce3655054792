package ingest

import (
	"sort"

	"github.com/cnogradi/training-consolidation-workbench/internal/domain"
)

// PageGroup is the text of one slide/page, in original element order.
type PageGroup struct {
	Number int
	Texts  []string
}

// GroupPages places every text element in exactly one page group. Elements
// with an explicit page number are grouped by it. Elements without one are
// assigned to a synthetic counter that advances when the pending element
// would push the accumulated length past chunkLimit, so each synthetic group
// stays near the limit and nothing is dropped.
func GroupPages(elements []domain.TextElement, chunkLimit int) []PageGroup {
	if chunkLimit <= 0 {
		chunkLimit = 1500
	}

	pages := make(map[int][]string)
	order := make([]int, 0)

	appendText := func(page int, text string) {
		if _, seen := pages[page]; !seen {
			order = append(order, page)
		}
		pages[page] = append(pages[page], text)
	}

	syntheticPage := 1
	syntheticSize := 0

	for _, el := range elements {
		if el.PageNumber != nil {
			appendText(*el.PageNumber, el.Text)
			continue
		}
		if syntheticSize > 0 && syntheticSize+len(el.Text) > chunkLimit {
			syntheticPage++
			syntheticSize = 0
		}
		appendText(syntheticPage, el.Text)
		syntheticSize += len(el.Text)
	}

	sort.Ints(order)
	out := make([]PageGroup, 0, len(order))
	for _, page := range order {
		out = append(out, PageGroup{Number: page, Texts: pages[page]})
	}
	return out
}
