// Package messaging publishes and consumes security events over a broker.
//
// Business code depends on Publisher and Consumer only. NATS and Kafka
// implementations are selected by driver name through NewFromDriver.
package messaging
