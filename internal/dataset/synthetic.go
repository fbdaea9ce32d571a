package dataset

import "math/rand"

// Synthetic builds a deterministic stand-in for Fashion-MNIST: 28x28 images
// where each class brightens its own horizontal band, plus uniform noise.
// It is meant for smoke runs and tests, not for meaningful accuracy numbers.
func Synthetic(nTrain, nTest int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	return &Dataset{
		Train: synthetic(nTrain, rng),
		Test:  synthetic(nTest, rng),
	}
}

func synthetic(n int, rng *rand.Rand) Partition {
	const rows, cols = 28, 28
	raw := make([]byte, n*rows*cols)
	labels := make([]int, n)
	band := rows / NumClasses
	for i := range n {
		y := rng.Intn(NumClasses)
		labels[i] = y
		img := raw[i*rows*cols : (i+1)*rows*cols]
		for r := range rows {
			for c := range cols {
				v := rng.Intn(64)
				if r/band == y {
					v += 160
				}
				img[r*cols+c] = byte(v)
			}
		}
	}
	return Partition{Rows: rows, Cols: cols, Pixels: normalise(raw), Labels: labels}
}
