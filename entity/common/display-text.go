package common

// DisplayText is plain text shown to drivers, tagged with an ISO 639-1
// language code.
type DisplayText struct {
	Language string `json:"language" bson:"language"`
	Text     string `json:"text" bson:"text"`
}
