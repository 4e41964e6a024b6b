/*
Package metrics exports client activity as Prometheus metrics.

A Collector is an observer: hand it to the connection and it is notified of
every HTTP exchange, every retry and every completed call.

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   true,
		Namespace: "swiftclient",
	})
	if err != nil {
		log.Fatal(err)
	}
	conn, err := swift.New(swift.Options{Credentials: creds, Observer: collector})
	http.Handle("/metrics", collector.Handler())

# Metrics

	requests_total{operation,method,status}
	request_duration_seconds{operation,method}
	request_errors_total{operation,type}
	retries_total{operation,reason}
	backoff_seconds_total
	calls_total{operation,status}
	call_attempts{operation}
	call_duration_seconds{operation}

Labels from Config.Labels are attached to every series as constant labels.
A disabled collector accepts notifications and records nothing.
*/
package metrics
