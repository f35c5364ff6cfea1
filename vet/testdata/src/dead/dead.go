package dead

func branch(x int) int {
	a := 1
	b := a + 2
	if b > 5 {
		x = 10 // want `dead code: x = 10$`
	}
	return x
}

func overwritten(n int) int {
	y := n * 2 // want `dead code: y := n \* 2$`
	y = 4
	return y
}

func constantSwitch() int {
	mode := 2
	r := 0
	switch mode {
	case 1:
		r = 100 // want `dead code: r = 100$`
	case 2:
		r = 200
	}
	return r
}

func loop(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}

func calls(n int) int {
	v := sideEffect(n)
	v = 0
	return v
}

func unreachableReturn(n int) int {
	k := 3
	if k > 5 {
		return n * 7 // want `dead code: return n \* 7$`
	}
	return n
}

func sideEffect(n int) int {
	return n / 3
}
