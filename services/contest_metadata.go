package services

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mitchellh/mapstructure"
)

// ContestMetadata is the typed view of the free-form contest metadata
// document. Known keys that fail to decode are dropped, unknown keys are
// kept in Extra.
type ContestMetadata struct {
	CreatorWallet  *string        `json:"creatorWallet,omitempty"`
	HostedContests *uint64        `json:"hostedContests,omitempty"`
	TotalRewards   *string        `json:"totalRewards,omitempty"`
	Title          *string        `json:"title,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

var contestMetadataKeys = map[string]bool{
	"creatorWallet":  true,
	"hostedContests": true,
	"totalRewards":   true,
	"title":          true,
}

func decodeJsonDocument(raw string, target any) error {
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.UseNumber()
	return decoder.Decode(target)
}

func decodeMetadataField(document map[string]any, key string, target any) bool {
	value, ok := document[key]
	if !ok || value == nil {
		return false
	}
	if err := mapstructure.Decode(value, target); err != nil {
		logger_cq.WithError(err).Debugf("dropping malformed contest metadata field %v", key)
		return false
	}
	return true
}

// decodeContestMetadata parses the stored metadata column. An empty or
// unparseable document yields empty metadata.
func decodeContestMetadata(raw string) *ContestMetadata {
	metadata := &ContestMetadata{}
	if strings.TrimSpace(raw) == "" {
		return metadata
	}

	document := map[string]any{}
	if err := decodeJsonDocument(raw, &document); err != nil {
		logger_cq.WithError(err).Debug("ignoring unparseable contest metadata")
		return metadata
	}

	var creatorWallet string
	if decodeMetadataField(document, "creatorWallet", &creatorWallet) {
		creatorWallet = normalizeAddress(creatorWallet)
		if common.IsHexAddress(creatorWallet) {
			metadata.CreatorWallet = &creatorWallet
		} else {
			logger_cq.Debugf("dropping invalid creator wallet %q from contest metadata", creatorWallet)
		}
	}

	var hostedContests uint64
	if decodeMetadataField(document, "hostedContests", &hostedContests) {
		metadata.HostedContests = &hostedContests
	}

	var totalRewards string
	if decodeMetadataField(document, "totalRewards", &totalRewards) {
		if amount, err := parseAmount(totalRewards); err == nil {
			totalRewards = amount.String()
			metadata.TotalRewards = &totalRewards
		} else {
			logger_cq.Debugf("dropping invalid total rewards %q from contest metadata", totalRewards)
		}
	}

	var title string
	if decodeMetadataField(document, "title", &title) {
		metadata.Title = &title
	}

	for key, value := range document {
		if contestMetadataKeys[key] {
			continue
		}
		if metadata.Extra == nil {
			metadata.Extra = map[string]any{}
		}
		metadata.Extra[key] = value
	}

	return metadata
}
