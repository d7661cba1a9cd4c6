package domain

// MessageBus routes messages between interface channels and the turn loop.
type MessageBus interface {
	Publish(msg Message)
	Subscribe() <-chan Message
	SendOutbound(msg Message)
	OnOutbound(interfaceName string, handler func(Message))
	Close()
}
