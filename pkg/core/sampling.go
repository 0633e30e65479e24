package core

import "math/rand"

// RandomVec3 returns a vector whose components are uniform in [0, 1)
func RandomVec3(random *rand.Rand) Vec3 {
	return NewVec3(random.Float64(), random.Float64(), random.Float64())
}

// RandomVec3Range returns a vector whose components are uniform in [min, max)
func RandomVec3Range(random *rand.Rand, min, max float64) Vec3 {
	span := max - min
	return NewVec3(
		min+span*random.Float64(),
		min+span*random.Float64(),
		min+span*random.Float64(),
	)
}

// RandomInUnitSphere rejection-samples a point strictly inside the unit sphere.
// Each attempt succeeds with probability pi/6, so the loop terminates almost surely.
func RandomInUnitSphere(random *rand.Rand) Vec3 {
	for {
		p := RandomVec3Range(random, -1, 1)
		if p.LengthSquared() < 1 {
			return p
		}
	}
}

// RandomUnitVector returns a random direction on the unit sphere
func RandomUnitVector(random *rand.Rand) Vec3 {
	return RandomInUnitSphere(random).Unit()
}

// RandomOnHemisphere returns a random unit vector in the hemisphere that normal points into
func RandomOnHemisphere(random *rand.Rand, normal Vec3) Vec3 {
	onUnitSphere := RandomUnitVector(random)
	if onUnitSphere.Dot(normal) < 0 {
		return onUnitSphere.Negate()
	}
	return onUnitSphere
}

// SampleSquare returns a jitter offset uniform in [-0.5, 0.5)^2 on the XY plane
func SampleSquare(random *rand.Rand) Vec3 {
	return NewVec3(random.Float64()-0.5, random.Float64()-0.5, 0)
}
