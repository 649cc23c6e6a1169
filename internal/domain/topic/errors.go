package topic

import "errors"

var (
	ErrInvalidSpec               = errors.New("invalid topic spec")
	ErrConnection                = errors.New("broker connection error")
	ErrTopicAlreadyExists        = errors.New("topic already exists")
	ErrTopicRejected             = errors.New("topic creation rejected")
	ErrPollTimeout               = errors.New("topics not visible before poll timeout")
	ErrSchemaRegistryUnreachable = errors.New("schema registry unreachable")
)

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrConnection)
}
