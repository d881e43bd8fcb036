package query

import (
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"

	"github.com/R3E-Network/thrones_api/internal/app/domain/character"
	"github.com/R3E-Network/thrones_api/internal/errors"
)

// DefaultLimit is the page size used when limit is not supplied.
const DefaultLimit = 20

// Page is a skip/limit window. Explicit records whether either value came
// from the request.
type Page struct {
	Skip     int
	Limit    int
	Explicit bool
}

// ParsePage reads limit and skip. A key that is present must hold an integer
// even when its value is empty.
func ParsePage(values url.Values, defaultLimit int) (Page, error) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	page := Page{Limit: defaultLimit}

	if values.Has(KeyLimit) {
		page.Explicit = true
		limit, err := strconv.Atoi(strings.TrimSpace(values.Get(KeyLimit)))
		if err != nil {
			return Page{}, errors.InvalidLimit("Invalid limit parameter. Must be an integer.")
		}
		if limit <= 0 {
			return Page{}, errors.InvalidLimit("Limit must be greater than 0.")
		}
		page.Limit = limit
	}

	if values.Has(KeySkip) {
		page.Explicit = true
		skip, err := strconv.Atoi(strings.TrimSpace(values.Get(KeySkip)))
		if err != nil {
			return Page{}, errors.InvalidSkip("Invalid skip parameter. Must be an integer.")
		}
		if skip < 0 {
			return Page{}, errors.InvalidSkip("Skip must be a non-negative integer.")
		}
		page.Skip = skip
	}
	return page, nil
}

// Paginate returns records[skip : skip+limit], clipped to the available
// length. A skip at or past the end is an error reporting the total.
func Paginate(records []character.Character, page Page) ([]character.Character, error) {
	if page.Skip < 0 {
		return nil, errors.InvalidSkip("Skip must be a non-negative integer.")
	}
	if page.Limit <= 0 {
		return nil, errors.InvalidLimit("Limit must be greater than 0.")
	}
	total := len(records)
	if page.Skip >= total {
		return nil, errors.SkipOutOfRange(total)
	}
	end := total
	if page.Limit < total-page.Skip {
		end = page.Skip + page.Limit
	}

	out := make([]character.Character, end-page.Skip)
	copy(out, records[page.Skip:end])
	return out, nil
}

// Sample draws min(n, len(records)) records uniformly without replacement.
// intN must behave like rand.IntN; nil selects the global source.
func Sample(records []character.Character, n int, intN func(int) int) []character.Character {
	if intN == nil {
		intN = rand.IntN
	}
	n = max(0, min(n, len(records)))

	pool := make([]character.Character, len(records))
	copy(pool, records)
	// partial Fisher-Yates: the first n slots end up as the sample
	for i := 0; i < n; i++ {
		j := i + intN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
