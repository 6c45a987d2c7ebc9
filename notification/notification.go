// Package notification delivers batch reports and dropped symbols to people.
package notification

import (
	"github.com/rodrigo-brito/stockwave/service"
)

type multi []service.Notifier

// Multi forwards every event to each notifier in order.
func Multi(notifiers ...service.Notifier) service.Notifier {
	return multi(notifiers)
}

func (m multi) Notify(text string) {
	for _, n := range m {
		n.Notify(text)
	}
}

func (m multi) OnError(err error) {
	for _, n := range m {
		n.OnError(err)
	}
}
