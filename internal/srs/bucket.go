package srs

// Bucket is the 4-way session-stats label shown in the study UI. It is a
// display aggregation of the 0-5 grade and never feeds back into scheduling.
type Bucket string

const (
	BucketEasy  Bucket = "easy"
	BucketGood  Bucket = "good"
	BucketHard  Bucket = "hard"
	BucketAgain Bucket = "again"
)

// BucketOf maps a grade to its display bucket.
func BucketOf(grade Grade) Bucket {
	switch {
	case grade >= GradeHesitant:
		return BucketEasy
	case grade == GradeDifficult:
		return BucketGood
	case grade >= GradeIncorrect:
		return BucketHard
	default:
		return BucketAgain
	}
}
