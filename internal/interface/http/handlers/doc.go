// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - Reusable middleware components
//   - Authentication middleware
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//	checker.AddCheck("push_gateway", handlers.NewGatewayCheck(pushClient))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Middleware
//
// The package provides several reusable middleware components:
//
//	// API Key authentication (bcrypt hashes of the accepted keys)
//	auth := handlers.NewAPIKeyAuth("X-API-Key", hashedKeys)
//	protected := auth.Middleware(myHandler)
//
//	// Request timeout
//	withTimeout := handlers.TimeoutMiddleware(30 * time.Second)(myHandler)
//
//	// Security headers
//	secure := handlers.SecurityHeadersMiddleware(myHandler)
//
//	// Chain multiple middleware
//	handler := handlers.ChainHandler(
//	    myHandler,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(64<<10),
//	    auth.Middleware,
//	)
//
// # Best Practices
//
// When implementing health checks:
//   - Use timeouts to prevent slow checks from blocking the response
//   - Include critical dependencies like database and cache
//   - Keep checks fast (< 1 second ideally)
//   - Return detailed information for debugging
//
// When using middleware:
//   - Apply security middleware early in the chain
//   - Apply authentication before authorization
//   - Use request size limits to prevent DoS attacks
//   - Add proper timeout handling for all endpoints
package handlers
