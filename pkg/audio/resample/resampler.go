// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Converts mono float buffers to a target rate using linear interpolation
package resample

// Resampler performs linear interpolation to convert between sample rates.
// It is stateless: every call treats its input as an independent block.
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64 // input samples advanced per output sample
}

// New creates a new resampler
func New(inputRate, outputRate int) *Resampler {
	r := &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
	}
	if inputRate > 0 && outputRate > 0 {
		r.ratio = float64(inputRate) / float64(outputRate)
	}
	return r
}

// Resample converts mono input samples to the output rate.
// Equal rates return the input slice itself.
func (r *Resampler) Resample(input []float32) []float32 {
	if len(input) == 0 || r.inputRate <= 0 || r.outputRate <= 0 {
		return []float32{}
	}
	if r.inputRate == r.outputRate {
		return input
	}

	outCount := r.OutputLen(len(input))
	output := make([]float32, outCount)
	last := len(input) - 1

	for j := range output {
		// Fractional source position for this output sample
		pos := float64(j) * float64(r.inputRate) / float64(r.outputRate)
		i0 := int(pos)
		if i0 > last {
			i0 = last
		}
		i1 := i0 + 1
		if i1 > last {
			i1 = last
		}
		frac := pos - float64(i0)

		output[j] = float32((1.0-frac)*float64(input[i0]) + frac*float64(input[i1]))
	}

	return output
}

// OutputLen returns max(1, floor(n*outputRate/inputRate)) for non-empty input
func (r *Resampler) OutputLen(n int) int {
	if n <= 0 || r.inputRate <= 0 || r.outputRate <= 0 {
		return 0
	}
	if r.inputRate == r.outputRate {
		return n
	}
	out := int(int64(n) * int64(r.outputRate) / int64(r.inputRate))
	if out < 1 {
		out = 1
	}
	return out
}

// InputRate returns the configured source rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the configured target rate
func (r *Resampler) OutputRate() int { return r.outputRate }

// Linear resamples input from inputRate to outputRate in one call
func Linear(input []float32, inputRate, outputRate int) []float32 {
	return New(inputRate, outputRate).Resample(input)
}
