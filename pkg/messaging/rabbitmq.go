package messaging

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQClient wraps an AMQP connection with automatic reconnection.
type RabbitMQClient struct {
	url  string
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.RWMutex

	notifyConnClose chan *amqp.Error
	reconnectDelay  time.Duration
	isClosed        bool
}

func NewRabbitMQClient(url string) (*RabbitMQClient, error) {
	client := &RabbitMQClient{
		url:            url,
		reconnectDelay: time.Second,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	go client.handleReconnect()

	return client, nil
}

func (r *RabbitMQClient) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log.Printf("Connecting to RabbitMQ at %s", maskURL(r.url))

	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	r.conn = conn
	r.ch = ch
	r.notifyConnClose = make(chan *amqp.Error)
	r.conn.NotifyClose(r.notifyConnClose)
	return nil
}

func (r *RabbitMQClient) handleReconnect() {
	for {
		r.mu.RLock()
		if r.isClosed {
			r.mu.RUnlock()
			return
		}
		notifyClose := r.notifyConnClose
		r.mu.RUnlock()

		err, ok := <-notifyClose
		if !ok || err == nil {
			return
		}
		log.Printf("RabbitMQ connection closed: %v. Reconnecting...", err)

		backoff := r.reconnectDelay
		for {
			r.mu.RLock()
			closed := r.isClosed
			r.mu.RUnlock()
			if closed {
				return
			}
			if err := r.connect(); err == nil {
				log.Println("RabbitMQ reconnected")
				break
			}
			log.Printf("Failed to reconnect: waiting %v", backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > time.Minute {
				backoff = time.Minute
			}
		}
	}
}

// DeclareQueueWithDLQ declares a durable queue whose rejected messages are
// routed to a companion dead-letter queue.
func (r *RabbitMQClient) DeclareQueueWithDLQ(name string) (amqp.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.ch == nil {
		return amqp.Queue{}, fmt.Errorf("channel is not initialized")
	}

	dlqName := name + ".dlq"

	if _, err := r.ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare DLQ: %w", err)
	}

	return r.ch.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	})
}

func (r *RabbitMQClient) Publish(ctx context.Context, queueName string, body []byte) error {
	r.mu.RLock()
	ch := r.ch
	r.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("connection is not available")
	}

	return ch.PublishWithContext(ctx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
}

func (r *RabbitMQClient) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.isClosed = true
	if r.ch != nil {
		r.ch.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

func (r *RabbitMQClient) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn != nil && !r.conn.IsClosed()
}

func maskURL(url string) string {
	if parts := strings.Split(url, "@"); len(parts) > 1 {
		prefixParts := strings.Split(parts[0], "://")
		if len(prefixParts) == 2 {
			return prefixParts[0] + "://***:***@" + parts[1]
		}
	}
	return url
}
