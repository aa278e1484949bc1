package cmd

import "fmt"

// paginate returns one page of items and a footer describing it. A zero
// page size or all returns every item without a footer.
func paginate[T any](items []T, page, pageSize int, all bool) ([]T, string) {
	if all || pageSize <= 0 {
		return items, ""
	}
	if page <= 0 {
		page = 1
	}
	footer := fmt.Sprintf("Showing page %d of %d (%d apps)", page, pageCount(len(items), pageSize), len(items))
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}, footer
	}
	return items[start:min(start+pageSize, len(items))], footer
}

func pageCount(total, pageSize int) int {
	if pageSize <= 0 || total == 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
