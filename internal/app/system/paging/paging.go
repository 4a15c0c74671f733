// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultSize is the number of messages returned when no size is given.
const DefaultSize = 50

// MaxSize is the largest page a client may request.
const MaxSize = 200

// Request is a zero-based page request. Size 0 means "use the default".
type Request struct {
	Page int
	Size int
}

// Skip returns the number of rows before this page. Size must be resolved.
func (p Request) Skip() int64 {
	return int64(p.Page) * int64(p.Size)
}

// Parse reads the "page" and "size" query parameters. Absent values parse
// as page 0 and size 0; anything that is not a non-negative integer is a
// validation error.
func Parse(r *http.Request) (Request, error) {
	page, err := nonNegative(query.Get(r, "page"), "page")
	if err != nil {
		return Request{}, err
	}
	size, err := nonNegative(query.Get(r, "size"), "size")
	if err != nil {
		return Request{}, err
	}
	return Request{Page: page, Size: size}, nil
}

func nonNegative(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("%s must be a non-negative integer", name)
	}
	return n, nil
}

// Clamp resolves a requested size: size <= 0 takes def, and anything above
// max is cut to max.
func Clamp(size, def, max int) int {
	if def > max {
		def = max
	}
	if size <= 0 {
		return def
	}
	if size > max {
		return max
	}
	return size
}
