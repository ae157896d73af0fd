// Package redis wraps go-redis with the service logger and config
// conventions. The relay uses it for PUBLISH/SUBSCRIBE fanout between
// service instances.
//
//	client, err := redis.New(redis.Config{Addr: "localhost:6379"}, log)
//	sub := client.Subscribe(ctx, "chatstream:messages")
package redis
