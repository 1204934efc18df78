// Package inbound turns form submissions into canonical records and hands
// them to the CRM forwarder.
//
// The HTTP acknowledgement never waits on processing: ReadDelivery only
// copies the request, and Receiver.SubmitDelivery decodes and forwards it on
// a detached context. Drain waits for that work at shutdown.
package inbound
