// Package notify forwards engine events to people and dashboards.
//
// Each notifier is an events.Handler. Attach subscribes it to the bus so it
// runs on its own queue and a slow Slack or Redis call never holds up a
// decision.
package notify
