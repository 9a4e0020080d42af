// Package ingestion accepts new catalog titles over HTTP, stores them in
// PostgreSQL and announces the change so every replica rebuilds its model.
package ingestion

// AddTitlesRequest is the JSON body of POST /api/v1/catalog/titles.
type AddTitlesRequest struct {
	Titles []string `json:"titles" validate:"required,min=1,max=1000,dive,required,max=1024"`
	Reason string   `json:"reason" validate:"max=255"`
}

// AddTitlesResponse reports how many titles were new.
type AddTitlesResponse struct {
	Received int    `json:"received"`
	Inserted int64  `json:"inserted"`
	Status   string `json:"status"`
}
