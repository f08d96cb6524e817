package domain

type HashType string
type JobStatus string
type CrackingAlgorithm string
type SearchMode string
type CompletionPolicy string

const (
	//Hash types
	HashMD5    HashType = "MD5"
	HashSHA256 HashType = "SHA256"

	//Job status
	StatusRunning   JobStatus = "RUNNING"
	StatusSucceeded JobStatus = "SUCCEEDED"
	StatusExhausted JobStatus = "EXHAUSTED"
	StatusFailed    JobStatus = "FAILED"
	StatusCancelled JobStatus = "CANCELLED"

	// Cracking Algorithms
	AlgoBruteForce CrackingAlgorithm = "BRUTE_FORCE"

	// Search modes
	ModeSequential SearchMode = "sequential"
	ModeParallel   SearchMode = "parallel"

	// Completion policies for parallel searches
	PolicyRunToCompletion CompletionPolicy = "RUN_TO_COMPLETION"
	PolicyEagerCancel     CompletionPolicy = "EAGER_CANCEL"
)

// Digest lengths in hex characters.
const (
	MD5DigestLength    = 32
	SHA256DigestLength = 64
)

const (
	CharsetLower = "abcdefghijklmnopqrstuvwxyz"

	DefaultPasswordLength = 5
)

type CrackingError string

const (
	ErrInvalidDigestFormat CrackingError = "INVALID_DIGEST_FORMAT"
	ErrUnsupportedHash     CrackingError = "UNSUPPORTED_HASH"
	ErrInvalidWorkerCount  CrackingError = "INVALID_WORKER_COUNT"
	ErrInvalidSearchSpace  CrackingError = "INVALID_SEARCH_SPACE"
	ErrInvalidCandidate    CrackingError = "INVALID_CANDIDATE"
	ErrPositionOutOfRange  CrackingError = "POSITION_OUT_OF_RANGE"
	ErrWorkerFault         CrackingError = "WORKER_FAULT"
	ErrJobNotFound         CrackingError = "JOB_NOT_FOUND"
	ErrJobRunning          CrackingError = "JOB_RUNNING"
	ErrInvalidMode         CrackingError = "INVALID_MODE"
	ErrInvalidPolicy       CrackingError = "INVALID_POLICY"
)

func (e CrackingError) Error() string {
	return string(e)

}

func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(s) {
	case ModeSequential, ModeParallel:
		return SearchMode(s), nil
	}
	return "", ErrInvalidMode
}

func ParseCompletionPolicy(s string) (CompletionPolicy, error) {
	switch CompletionPolicy(s) {
	case "":
		return PolicyRunToCompletion, nil
	case PolicyRunToCompletion, PolicyEagerCancel:
		return CompletionPolicy(s), nil
	}
	return "", ErrInvalidPolicy
}

func (s JobStatus) Terminal() bool {
	return s != StatusRunning
}
