package domain

type CarDealer struct {
	ID        int64   `json:"id"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	FullName  string  `json:"full_name"`
	Lat       float64 `json:"lat"`
	Long      float64 `json:"long"`
	ShortName string  `json:"short_name"`
	St        string  `json:"st"`
	State     *string `json:"state,omitempty"` // not every backend row carries it
	Zip       string  `json:"zip"`
}
