package models

import (
	"time"
)

type AdmissionRecord struct {
	PartyID    string    `json:"party_id"`
	Name       string    `json:"name"`
	PartySize  int       `json:"party_size"`
	JoinedAt   time.Time `json:"joined_at"`
	SeatedAt   time.Time `json:"seated_at"`
	WaitedMins float64   `json:"waited_minutes"`
}

type HistoricalStats struct {
	TotalServed        int               `json:"total_served"`
	TotalParties       int               `json:"total_parties"`
	AveragePartySize   float64           `json:"average_party_size"`
	AverageWaitTime    float64           `json:"average_wait_time"`
	AverageActualWait  float64           `json:"average_actual_wait"`
	HourlyData         map[int]int       `json:"hourly_data"`
	CurrentQueueLength int               `json:"current_queue_length"`
	History            []AdmissionRecord `json:"history"`
}
