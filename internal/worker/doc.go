// Package worker implements the Redis Streams front end of the pathway router.
//
// The worker reads routing requests from a stream in a consumer group, routes
// the patient record and publishes the activation results to a result stream.
// Requests that cannot be decoded or routed are published to the error stream
// (RESULT_STREAM + ".errors"). Every message is acknowledged.
//
// Request message, field "data":
//
//	{"request_id": "r-1", "patient": {"age_months": 10, "sex": "female", "tmax_c": 39.4}}
//
// Result message, field "data":
//
//	{"request_id": "r-1", "results": [...], "timestamp": "2026-01-02T15:04:05Z"}
//
// Example usage:
//
//	cfg, _ := config.Load()
//	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
//
//	w := worker.NewWorker(cfg, redisClient, r, recorder, logger)
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop(5 * time.Second)
package worker
