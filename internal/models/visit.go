package models

import "time"

// SKULine is a quantity of one product.
type SKULine struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// VisitRecord is a shop visit as sent to the backend with the saveVisit action.
type VisitRecord struct {
	ID         string    `json:"id"`
	NationalID string    `json:"nationalID"`
	Name       string    `json:"name"`
	Region     string    `json:"region"`
	ShopName   string    `json:"shopName"`
	Sold       string    `json:"sold"`
	SKUs       []SKULine `json:"skus"`
	Reason     string    `json:"reason"`
	Longitude  float64   `json:"longitude"`
	Latitude   float64   `json:"latitude"`
	Selfie     string    `json:"selfie"`
	CapturedAt time.Time `json:"capturedAt"`
}

// UpliftRecord is a stock uplift as sent to the backend with the saveUplift action.
type UpliftRecord struct {
	ID         string    `json:"id"`
	NationalID string    `json:"nationalID"`
	Name       string    `json:"name"`
	Region     string    `json:"region"`
	ShopName   string    `json:"shopName"`
	SKUs       []SKULine `json:"skus"`
	Longitude  float64   `json:"longitude"`
	Latitude   float64   `json:"latitude"`
	Photo      string    `json:"photo"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Dashboard holds the agent's month-to-date counters.
type Dashboard struct {
	VisitsMTD  int     `json:"visitsMTD"`
	SoldMTD    int     `json:"soldMTD"`
	CartonsMTD int     `json:"cartonsMTD"`
	Efficiency float64 `json:"efficiency"`
}
