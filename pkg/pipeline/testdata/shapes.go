package shapes

// area has a switch on a constant mode.
func area(w, h int) int {
	mode := 1
	switch mode {
	case 0:
		return 0
	case 1:
		return w * h
	}
	return -1
}

func scale(v int) int {
	factor := 2
	factor = 3
	return v * factor
}

func sum(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += i
	}
	return total
}
