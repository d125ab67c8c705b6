// Package parally distributes a bounded list of parameter sets over a pool of
// remote workers connected over TCP.
//
// A coordinator (Server) accepts worker connections, hands unclaimed parameter
// sets to idle workers, collects their results and invokes a completion
// callback once every set is accounted for. A worker (Client) connects once,
// announces readiness, runs the bound task for every parameter set it
// receives and reports the result or the error.
//
//	srv := parally.NewServer("localhost", 5000)
//	_ = srv.BindParameters([]map[string]interface{}{{"a": 1, "b": 2}})
//	_ = srv.OnCompleted(func(results model.Results) { ... })
//	_ = srv.Start(ctx)
//	_ = srv.Wait(ctx)
//
//	worker, _ := parally.NewClient("localhost", 5000, add)
//	_ = worker.Start(ctx)
//
// The wire protocol is implemented in the protocol package, the coordinator
// scheduling loop in service/dispatcher and the worker loop in service/client.
package parally
