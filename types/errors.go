package types

type NotFoundErr []byte

func NewNotFoundError(s string) NotFoundErr {
	return NotFoundErr([]byte(s))
}

func (nfe NotFoundErr) Error() string {
	return string(nfe)
}

func IsNotFound(err error) bool {
	_, ok := err.(NotFoundErr)
	return ok
}

type AlreadyExist []byte

func NewAlreadyExistError(s string) AlreadyExist {
	return AlreadyExist([]byte(s))
}

func (aee AlreadyExist) Error() string {
	return string(aee)
}

func IsAlreadyExist(err error) bool {
	_, ok := err.(AlreadyExist)
	return ok
}
