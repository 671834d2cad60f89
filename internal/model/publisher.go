package model

// Publisher broadcasts reports to downstream consumers.
type Publisher interface {
	Publish(report *Report) error
	Close()
}
