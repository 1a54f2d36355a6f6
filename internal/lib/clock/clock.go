// Package clock отделяет бизнес-логику от системных часов.
// Сервисы получают Clock через конструктор, тесты подставляют Fake
// и свободно двигают время.
package clock

import "time"

// Clock возвращает текущее время.
type Clock interface {
	Now() time.Time
}

// Real — системные часы.
type Real struct{}

// Now возвращает time.Now в UTC.
func (Real) Now() time.Time { return time.Now().UTC() }

// Fake — управляемые часы для тестов.
type Fake struct {
	Current time.Time
}

// Now возвращает зафиксированное время.
func (f *Fake) Now() time.Time { return f.Current }

// Advance сдвигает время вперёд на d.
func (f *Fake) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
