package config

import (
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConnectAMQP opens the broker connection used for email dispatch. Dispatch
// is best-effort, so a failed connection only disables publishing.
func ConnectAMQP(url string) *amqp.Connection {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Printf("warning: amqp connect failed, email dispatch disabled: %v", err)
		return nil
	}
	log.Println("connected to rabbitmq")
	return conn
}
