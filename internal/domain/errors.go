package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrOutOfRange         = errors.New("значение вне допустимого диапазона")
	ErrUnknownField       = errors.New("неизвестное поле")
	ErrInvalidTransition  = errors.New("недопустимый переход мастера")
	ErrConfirmUnavailable = errors.New("подтверждение недоступно: не выбран тип шкафа")
	ErrCreationInFlight   = errors.New("создание заказа уже выполняется")
	ErrGCodeNeedsDXF      = errors.New("генерация G-кода требует завершённого DXF")
)
