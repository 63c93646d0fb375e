package models

import (
	"fmt"
	"time"
)

type Location struct {
	Latitude  float64  `json:"latitude" bson:"latitude"`
	Longitude float64  `json:"longitude" bson:"longitude"`
	Address   string   `json:"address" bson:"address"`
	Accuracy  *float64 `json:"accuracy" bson:"accuracy"`
}

type LastKnownLocation struct {
	Latitude  float64   `json:"latitude" bson:"latitude"`
	Longitude float64   `json:"longitude" bson:"longitude"`
	Address   string    `json:"address" bson:"address"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

func (l Location) Coordinates() string {
	return fmt.Sprintf("%v, %v", l.Latitude, l.Longitude)
}

func (l Location) MapsURL() string {
	return fmt.Sprintf("https://maps.google.com/?q=%v,%v", l.Latitude, l.Longitude)
}

func (l Location) ToLastKnown(at time.Time) LastKnownLocation {
	return LastKnownLocation{
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Address:   l.Address,
		Timestamp: at,
	}
}
