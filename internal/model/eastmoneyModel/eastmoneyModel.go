package eastmoneyModel

type SuggestResponse struct {
	QuotationCodeTable QuotationCodeTable `json:"QuotationCodeTable"`
}

type QuotationCodeTable struct {
	Data []SuggestItem `json:"Data"`
}

type SuggestItem struct {
	Code             string `json:"Code"`
	Name             string `json:"Name"`
	MktNum           string `json:"MktNum"`
	SecurityTypeName string `json:"SecurityTypeName"`
}
