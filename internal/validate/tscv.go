package validate

type fold struct {
	TrainEnd int // train rows are [0, TrainEnd)
	TestEnd  int // test rows are [TrainEnd, TestEnd)
}

// timeSeriesSplit produces expanding-window folds over n chronologically
// ordered rows. Each fold tests on the slice immediately after its training
// window, so no fold ever trains on future data. Returns nil when n is too
// small to give every fold a non-empty train and test slice.
func timeSeriesSplit(n, folds int) []fold {
	if folds < 2 {
		return nil
	}
	testSize := n / (folds + 1)
	if testSize < 1 {
		return nil
	}
	out := make([]fold, 0, folds)
	for i := 0; i < folds; i++ {
		trainEnd := n - (folds-i)*testSize
		if trainEnd < 1 {
			return nil
		}
		out = append(out, fold{TrainEnd: trainEnd, TestEnd: trainEnd + testSize})
	}
	return out
}
