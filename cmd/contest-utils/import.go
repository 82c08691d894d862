package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JiaJunDeng5930/ChainContest-sub000/db"
	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

// fixtureFile is the yaml layout accepted by the import command. Timestamps
// are RFC3339, metadata and payload documents are plain yaml mappings.
type fixtureFile struct {
	Contests []struct {
		ID              string         `yaml:"id"`
		ChainID         int64          `yaml:"chainId"`
		ContractAddress string         `yaml:"contractAddress"`
		InternalKey     *string        `yaml:"internalKey"`
		Status          string         `yaml:"status"`
		TimeWindowStart time.Time      `yaml:"timeWindowStart"`
		TimeWindowEnd   time.Time      `yaml:"timeWindowEnd"`
		OriginTag       string         `yaml:"originTag"`
		SealedAt        *time.Time     `yaml:"sealedAt"`
		Metadata        map[string]any `yaml:"metadata"`
		CreatedAt       time.Time      `yaml:"createdAt"`
	} `yaml:"contests"`

	Participants []struct {
		ContestID      string    `yaml:"contestId"`
		WalletAddress  string    `yaml:"walletAddress"`
		VaultReference *string   `yaml:"vaultReference"`
		Amount         string    `yaml:"amount"`
		OccurredAt     time.Time `yaml:"occurredAt"`
	} `yaml:"participants"`

	RewardClaims []struct {
		ContestID     string    `yaml:"contestId"`
		WalletAddress string    `yaml:"walletAddress"`
		Amount        string    `yaml:"amount"`
		ClaimedAt     time.Time `yaml:"claimedAt"`
	} `yaml:"rewardClaims"`

	Leaderboards []struct {
		ContestID string    `yaml:"contestId"`
		Version   int64     `yaml:"version"`
		Entries   []any     `yaml:"entries"`
		WrittenAt time.Time `yaml:"writtenAt"`
	} `yaml:"leaderboards"`

	Users []struct {
		IdentityID     string    `yaml:"identityId"`
		ExternalUserID string    `yaml:"externalUserId"`
		CreatedAt      time.Time `yaml:"createdAt"`
		Wallets        []struct {
			Address   string     `yaml:"address"`
			BoundAt   time.Time  `yaml:"boundAt"`
			UnboundAt *time.Time `yaml:"unboundAt"`
		} `yaml:"wallets"`
	} `yaml:"users"`

	CreationRequests []struct {
		RequestID string         `yaml:"requestId"`
		UserID    string         `yaml:"userId"`
		ChainID   int64          `yaml:"chainId"`
		Payload   map[string]any `yaml:"payload"`
		CreatedAt time.Time      `yaml:"createdAt"`
		Artifact  *struct {
			ArtifactID      string    `yaml:"artifactId"`
			ContestID       *string   `yaml:"contestId"`
			ContractAddress *string   `yaml:"contractAddress"`
			TransactionHash *string   `yaml:"transactionHash"`
			Status          string    `yaml:"status"`
			CreatedAt       time.Time `yaml:"createdAt"`
		} `yaml:"artifact"`
	} `yaml:"creationRequests"`
}

var importCmd = &cobra.Command{
	Use:   "import <fixture.yaml>",
	Short: "Import contest fixtures",
	Long:  "Import contests, activity, leaderboards, users and creation requests from a yaml fixture file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	addConfigFlags(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	fixture, err := loadFixture(args[0])
	if err != nil {
		return err
	}

	if err := initDatabase(cmd); err != nil {
		return err
	}
	defer db.MustCloseDB()

	if err := db.ApplyEmbeddedDbSchema(-2); err != nil {
		return err
	}

	return importFixture(fixture)
}

func loadFixture(path string) (*fixtureFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening fixture file %v: %w", path, err)
	}
	defer f.Close()

	fixture := &fixtureFile{}
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(fixture); err != nil {
		return nil, fmt.Errorf("error decoding fixture file %v: %w", path, err)
	}
	return fixture, nil
}

func toMillisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	millis := t.UnixMilli()
	return &millis
}

func toJsonDocument(value any, fallback string) (string, error) {
	if value == nil {
		return fallback, nil
	}
	document, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(document), nil
}

func importFixture(fixture *fixtureFile) error {
	contests := make([]*dbtypes.Contest, 0, len(fixture.Contests))
	for _, contest := range fixture.Contests {
		metadata, err := toJsonDocument(contest.Metadata, "{}")
		if err != nil {
			return fmt.Errorf("invalid metadata of contest %v: %w", contest.ID, err)
		}
		contests = append(contests, &dbtypes.Contest{
			ID:              contest.ID,
			ChainID:         contest.ChainID,
			ContractAddress: contest.ContractAddress,
			InternalKey:     contest.InternalKey,
			Status:          contest.Status,
			TimeWindowStart: contest.TimeWindowStart.UnixMilli(),
			TimeWindowEnd:   contest.TimeWindowEnd.UnixMilli(),
			OriginTag:       contest.OriginTag,
			SealedAt:        toMillisPtr(contest.SealedAt),
			Metadata:        metadata,
			CreatedAt:       contest.CreatedAt.UnixMilli(),
			UpdatedAt:       contest.CreatedAt.UnixMilli(),
		})
	}

	participants := make([]*dbtypes.Participant, 0, len(fixture.Participants))
	for _, participant := range fixture.Participants {
		participants = append(participants, &dbtypes.Participant{
			ContestID:      participant.ContestID,
			WalletAddress:  participant.WalletAddress,
			VaultReference: participant.VaultReference,
			Amount:         participant.Amount,
			OccurredAt:     participant.OccurredAt.UnixMilli(),
		})
	}

	rewardClaims := make([]*dbtypes.RewardClaim, 0, len(fixture.RewardClaims))
	for _, claim := range fixture.RewardClaims {
		rewardClaims = append(rewardClaims, &dbtypes.RewardClaim{
			ContestID:     claim.ContestID,
			WalletAddress: claim.WalletAddress,
			Amount:        claim.Amount,
			ClaimedAt:     claim.ClaimedAt.UnixMilli(),
		})
	}

	leaderboards := make([]*dbtypes.LeaderboardVersion, 0, len(fixture.Leaderboards))
	for _, leaderboard := range fixture.Leaderboards {
		entries, err := toJsonDocument(leaderboard.Entries, "[]")
		if err != nil {
			return fmt.Errorf("invalid leaderboard %v:%v: %w", leaderboard.ContestID, leaderboard.Version, err)
		}
		leaderboards = append(leaderboards, &dbtypes.LeaderboardVersion{
			ContestID: leaderboard.ContestID,
			Version:   leaderboard.Version,
			Entries:   entries,
			WrittenAt: leaderboard.WrittenAt.UnixMilli(),
		})
	}

	identities := make([]*dbtypes.UserIdentity, 0, len(fixture.Users))
	bindings := []*dbtypes.WalletBinding{}
	for _, user := range fixture.Users {
		identities = append(identities, &dbtypes.UserIdentity{
			IdentityID:     user.IdentityID,
			ExternalUserID: user.ExternalUserID,
			CreatedAt:      user.CreatedAt.UnixMilli(),
		})
		for _, wallet := range user.Wallets {
			bindings = append(bindings, &dbtypes.WalletBinding{
				IdentityID:    user.IdentityID,
				WalletAddress: wallet.Address,
				BoundAt:       wallet.BoundAt.UnixMilli(),
				UnboundAt:     toMillisPtr(wallet.UnboundAt),
			})
		}
	}

	requests := make([]*dbtypes.ContestCreationRequest, 0, len(fixture.CreationRequests))
	artifacts := []*dbtypes.ContestDeploymentArtifact{}
	for _, request := range fixture.CreationRequests {
		payload, err := toJsonDocument(request.Payload, "{}")
		if err != nil {
			return fmt.Errorf("invalid payload of request %v: %w", request.RequestID, err)
		}
		requests = append(requests, &dbtypes.ContestCreationRequest{
			RequestID: request.RequestID,
			UserID:    request.UserID,
			ChainID:   request.ChainID,
			Payload:   payload,
			CreatedAt: request.CreatedAt.UnixMilli(),
			UpdatedAt: request.CreatedAt.UnixMilli(),
		})

		if artifact := request.Artifact; artifact != nil {
			createdAt := artifact.CreatedAt.UnixMilli()
			artifacts = append(artifacts, &dbtypes.ContestDeploymentArtifact{
				ArtifactID:      &artifact.ArtifactID,
				RequestID:       &request.RequestID,
				ContestID:       artifact.ContestID,
				ContractAddress: artifact.ContractAddress,
				TransactionHash: artifact.TransactionHash,
				Status:          &artifact.Status,
				CreatedAt:       &createdAt,
				UpdatedAt:       &createdAt,
			})
		}
	}

	err := db.RunDBTransaction(func(tx *sqlx.Tx) error {
		if err := db.InsertContests(contests, tx); err != nil {
			return fmt.Errorf("error inserting contests: %w", err)
		}
		if err := db.InsertParticipants(participants, tx); err != nil {
			return fmt.Errorf("error inserting participants: %w", err)
		}
		if err := db.InsertRewardClaims(rewardClaims, tx); err != nil {
			return fmt.Errorf("error inserting reward claims: %w", err)
		}
		if err := db.InsertLeaderboardVersions(leaderboards, tx); err != nil {
			return fmt.Errorf("error inserting leaderboards: %w", err)
		}
		for _, identity := range identities {
			if err := db.InsertUserIdentity(identity, tx); err != nil {
				return fmt.Errorf("error inserting user %v: %w", identity.ExternalUserID, err)
			}
		}
		if err := db.InsertWalletBindings(bindings, tx); err != nil {
			return fmt.Errorf("error inserting wallet bindings: %w", err)
		}
		if err := db.InsertContestCreationRequests(requests, tx); err != nil {
			return fmt.Errorf("error inserting creation requests: %w", err)
		}
		if err := db.InsertContestDeploymentArtifacts(artifacts, tx); err != nil {
			return fmt.Errorf("error inserting deployment artifacts: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = verifyImportedContests(contests)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"contests":     len(contests),
		"participants": len(participants),
		"rewardClaims": len(rewardClaims),
		"leaderboards": len(leaderboards),
		"users":        len(identities),
		"requests":     len(requests),
	}).Info("fixture imported")
	return nil
}

// verifyImportedContests reads the imported contests back through the reader
// handle and fails if any of them is missing.
func verifyImportedContests(contests []*dbtypes.Contest) error {
	ids := make([]string, 0, len(contests))
	for _, contest := range contests {
		ids = append(ids, contest.ID)
	}

	stored, err := db.GetContestsByIds(context.Background(), ids)
	if err != nil {
		return fmt.Errorf("error verifying imported contests: %w", err)
	}

	found := make(map[string]bool, len(stored))
	for _, contest := range stored {
		found[contest.ID] = true
	}
	missing := []string{}
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("imported contests not readable: %v", missing)
	}
	return nil
}
