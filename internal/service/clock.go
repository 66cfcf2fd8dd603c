package service

import "time"

// Clock abstrae el tiempo para que los tests avancen timers sin dormir.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer es el handle de un AfterFunc pendiente.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

// SystemClock devuelve el reloj real del proceso.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
