package utility

type AppError struct {
	message string
}

func (e *AppError) Error() string {
	return e.message
}

func Err(m string) error {
	return &AppError{m}
}

var (
	ErrOutOfOrderUpdate  = Err("update timestamp precedes the stored timestamp")
	ErrEntityRetired     = Err("entity retired")
	ErrUnknownEntity     = Err("unknown entity")
	ErrAlreadyOpen       = Err("entity channel already open")
	ErrAlreadyRegistered = Err("entity already registered")
	ErrInvalidStatus     = Err("invalid status value")
	ErrInvalidProperty   = Err("invalid property name")
)
