// Package events contains the topics of the application event bus.
package events

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cskr/pubsub"
)

// Event channel names used for event Pubsub

// internal
const (
	BrokerConnStatus = "brokerConnStatus" // int
	Shutdown         = "shutdown"         // bool
	OsExit           = "osExit"           // bool
	SendText         = "sendText"         // string
)

// for message handling
const (
	MsgQueued   = "msgQueued"   // trx.Message
	MsgSent     = "msgSent"     // trx.Message
	MsgReceived = "msgReceived" // trx.Message
	DecodeError = "decodeError" // string, the reason
	Locked      = "locked"      // modem.LockInfo
	ChannelBusy = "channelBusy" // bool
)

// Broker connection states published on BrokerConnStatus.
const (
	DISCONNECTED = 0
	CONNECTED    = 1
)

// WatchSystemEvents publishes OsExit once the process receives an interrupt
// or terminate signal.
func WatchSystemEvents(evPS *pubsub.PubSub) {

	// Channel to handle OS signals
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(osSignals)

	<-osSignals
	evPS.Pub(true, OsExit)
}
