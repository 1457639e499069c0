package utility

import (
	"strings"

	"github.com/google/uuid"
)

func NewUUID() string {
	return uuid.New().String()
}

// SplitList splits a comma separated query value, dropping empty and repeated items
func SplitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" && !Contains(list, item) {
			list = append(list, item)
		}
	}
	return list
}
