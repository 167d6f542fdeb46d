package ndarray

// Random sampling. Both functions fill an existing, already-allocated
// output array with draws scheduled asynchronously through the engine;
// WaitToRead on out before consuming the results.

// SampleGaussian fills out with samples from N(mean, stddev).
// Fails with ErrEngine if out owns no buffer.
func SampleGaussian(mean, stddev float32, out *NDArray) error {
	if out.IsNone() {
		return out.none("SampleGaussian")
	}
	return out.eng.Sample(DistGaussian, mean, stddev, out.blob.handle)
}

// SampleUniform fills out with samples from U[low, high).
// Fails with ErrEngine if out owns no buffer.
func SampleUniform(low, high float32, out *NDArray) error {
	if out.IsNone() {
		return out.none("SampleUniform")
	}
	return out.eng.Sample(DistUniform, low, high, out.blob.handle)
}
