package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

type Subscriber struct {
	Handler any
}

// EventBus dispatches published values to every subscribed function whose
// parameter list matches the published arguments.
type EventBus interface {
	Publish(args ...any)
	Subscribe(handler any)
	Unsubscribe(handler any)
	Clear()
	SubscribersCount() int
}

type EventBusWithError interface {
	EventBus
	PublishE(args ...any) error
}

var (
	ErrNoSubscribers        = errors.New("eventbus: no matching subscribers")
	ErrInvalidHandlerReturn = errors.New("eventbus: invalid handler return signature")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type publisherImpl struct {
	log         logrus.FieldLogger
	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewEventPublisher returns an in-process bus. log may be nil.
func NewEventPublisher(log logrus.FieldLogger) EventBusWithError {
	return &publisherImpl{log: log}
}

func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}

	for i, arg := range args {
		paramType := t.In(i)
		if arg == nil {
			switch paramType.Kind() {
			case reflect.Interface, reflect.Ptr:
				continue
			default:
				return false
			}
		}
		if !reflect.TypeOf(arg).AssignableTo(paramType) {
			return false
		}
	}
	return true
}

func (p *publisherImpl) matching(args []any) []reflect.Value {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []reflect.Value
	for _, s := range p.subscribers {
		if MatchSignature(s.Handler, args) {
			out = append(out, reflect.ValueOf(s.Handler))
		}
	}
	return out
}

func callArgs(fn reflect.Value, args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(fn.Type().In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

// invoke calls fn and converts a panic or a non-nil error return into an error.
func invoke(fn reflect.Value, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked: %v", fn.Type(), r)
		}
	}()

	out := fn.Call(callArgs(fn, args))
	switch {
	case len(out) == 0:
		return nil
	case len(out) > 1:
		return fmt.Errorf("%w: handler %s returned %d values", ErrInvalidHandlerReturn, fn.Type(), len(out))
	case out[0].Type() != errorType:
		return fmt.Errorf("%w: handler %s return type is %s", ErrInvalidHandlerReturn, fn.Type(), out[0].Type())
	case !out[0].IsNil():
		return out[0].Interface().(error)
	}
	return nil
}

// Publish delivers args to every matching handler. Handler failures are logged.
func (p *publisherImpl) Publish(args ...any) {
	handled := false
	for _, fn := range p.matching(args) {
		if err := invoke(fn, args); err != nil {
			if p.log != nil {
				p.log.WithField("args", args).Errorf("eventbus.Publish: %v", err)
			}
			continue
		}
		handled = true
	}

	if !handled && p.log != nil {
		p.log.Warnf("eventbus.Publish: no matching subscribers for event with args: %v", args)
	}
}

// PublishE delivers args to every matching handler and joins their errors.
func (p *publisherImpl) PublishE(args ...any) error {
	handlers := p.matching(args)
	if len(handlers) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	for _, fn := range handlers {
		if err := invoke(fn, args); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *publisherImpl) Subscribe(handler any) {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func {
		panic("handler must be a function")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, Subscriber{Handler: handler})
}

// Unsubscribe removes the first subscription of handler. Functions are
// compared by code pointer, so closures from the same literal are equal.
func (p *publisherImpl) Unsubscribe(handler any) {
	ptr := reflect.ValueOf(handler).Pointer()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.subscribers {
		if reflect.ValueOf(s.Handler).Pointer() == ptr {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			return
		}
	}
}

func (p *publisherImpl) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = nil
}

func (p *publisherImpl) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}
