// Package events distributes usage snapshots, server output and lifecycle
// notifications to interested consumers.
//
// A Broker fans events out by Topic:
//
//	ch, unsubscribe := broker.Subscribe(256, events.TopicLog, events.TopicUsage)
//	defer unsubscribe()
//	for ev := range ch {
//		switch ev.Topic {
//		case events.TopicLog:
//			fmt.Println(ev.Log.Message)
//		case events.TopicUsage:
//			fmt.Println(ev.Usage.TotalTokens)
//		}
//	}
//
// Publishing never blocks the supervisor's stream readers. A subscriber that
// falls behind loses events rather than stalling the servers.
//
// EventGenerator renders human-readable lifecycle messages from templates
// such as "Server {{.Name}} exited{{if .Error}}: {{.Error}}{{end}}" and
// publishes them on TopicLifecycle.
package events
