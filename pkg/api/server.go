/*
 * Copyright 2025 Calldeck Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api exposes the fleet dashboard over HTTP. All endpoints return
// JSON and read through the store; device detail additionally refreshes the
// device from the fleet API before answering.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/calldeck/calldeck/pkg/logger"
	"github.com/calldeck/calldeck/pkg/models"
	"github.com/calldeck/calldeck/pkg/sync"
)

const requestIDHeader = "X-Request-ID"

// Store is the subset of the persistence layer the API reads from.
type Store interface {
	ListDevices() ([]models.Device, error)
	UpdateRegion(deviceID, region string) error
	Regions() ([]string, error)
	CallHistory(deviceID string, since time.Time) ([]models.CallRecord, error)
}

// Fleet is the subset of the sync service the API drives on demand.
type Fleet interface {
	Snapshot(ctx context.Context, deviceID string) (*sync.DeviceSnapshot, error)
	LiveCalls(ctx context.Context, devices []models.Device) ([]models.ActiveCall, error)
}

// Server serves the dashboard API.
type Server struct {
	store  Store
	fleet  Fleet
	router *gin.Engine
	logger zerolog.Logger
}

// NewServer wires the routes and returns a ready-to-serve handler.
func NewServer(store Store, fleet Fleet, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:  store,
		fleet:  fleet,
		logger: log.WithComponent("api"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/devices", s.listDevices)
		v1.GET("/devices/:id", s.deviceSnapshot)
		v1.PUT("/devices/:id/region", s.updateRegion)
		v1.GET("/regions", s.listRegions)
		v1.GET("/calls/active", s.activeCalls)
		v1.GET("/calls/history", s.callHistory)

		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong"})
		})
	}

	s.router = r

	return s
}

// Handler returns the underlying HTTP handler for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger tags every request with an ID and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		s.logger.Debug().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	}
}

func (s *Server) abortError(c *gin.Context, status int, err error) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

var errEmptyRegion = errors.New("region must not be empty")
