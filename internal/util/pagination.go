package util

// Calculate turns a 1-based page and size into an ES from/size pair.
func Calculate(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 10
	}
	return (page - 1) * size, size
}
