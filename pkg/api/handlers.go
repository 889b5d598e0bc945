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

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/calldeck/calldeck/pkg/store"
)

const defaultHistoryHours = 24

func (s *Server) listDevices(c *gin.Context) {
	devices, err := s.store.ListDevices()
	if err != nil {
		s.abortError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (s *Server) deviceSnapshot(c *gin.Context) {
	snapshot, err := s.fleet.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortError(c, http.StatusBadGateway, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

type regionRequest struct {
	Region string `json:"region"`
}

func (s *Server) updateRegion(c *gin.Context) {
	var req regionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, http.StatusBadRequest, err)
		return
	}

	if req.Region == "" {
		s.abortError(c, http.StatusBadRequest, errEmptyRegion)
		return
	}

	err := s.store.UpdateRegion(c.Param("id"), req.Region)
	if errors.Is(err, store.ErrDeviceNotFound) {
		s.abortError(c, http.StatusNotFound, err)
		return
	}

	if err != nil {
		s.abortError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deviceId": c.Param("id"), "region": req.Region})
}

func (s *Server) listRegions(c *gin.Context) {
	regions, err := s.store.Regions()
	if err != nil {
		s.abortError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"regions": regions})
}

func (s *Server) activeCalls(c *gin.Context) {
	devices, err := s.store.ListDevices()
	if err != nil {
		s.abortError(c, http.StatusInternalServerError, err)
		return
	}

	calls, err := s.fleet.LiveCalls(c.Request.Context(), devices)
	if err != nil {
		s.abortError(c, http.StatusBadGateway, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

func (s *Server) callHistory(c *gin.Context) {
	hours := defaultHistoryHours

	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.abortError(c, http.StatusBadRequest, errInvalidHours)
			return
		}

		hours = parsed
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	records, err := s.store.CallHistory(c.Query("deviceId"), since)
	if err != nil {
		s.abortError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"calls": records, "hours": hours})
}

var errInvalidHours = errors.New("hours must be a positive integer")
