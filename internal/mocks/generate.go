// Package mocks provides gomock-generated mocks for the console's ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	primary := mocks.NewMockIPLocator(ctrl)
//	primary.EXPECT().LookupIP(gomock.Any(), "203.0.113.9").Return(loc, nil)
package mocks

// Geolocation provider ports: LookupIP, LookupCaller, Reverse.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=geo_mock.go github.com/versehub/console/internal/ports IPLocator,CallerLocator,ReverseGeocoder

// Cache port: Set, Get, Delete, SetIfNotExists, Health.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_mock.go github.com/versehub/console/internal/ports CacheRepository
