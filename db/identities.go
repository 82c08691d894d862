package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

func InsertUserIdentity(identity *dbtypes.UserIdentity, tx *sqlx.Tx) error {
	_, err := tx.Exec(`INSERT INTO user_identities (identity_id, external_user_id, created_at) VALUES ($1, $2, $3)`,
		identity.IdentityID, identity.ExternalUserID, identity.CreatedAt)
	if err != nil {
		return err
	}
	return nil
}

func InsertWalletBindings(bindings []*dbtypes.WalletBinding, tx *sqlx.Tx) error {
	for _, binding := range bindings {
		_, err := tx.Exec(EngineQuery(map[dbtypes.DBEngineType]string{
			dbtypes.DBEnginePgsql: `
				INSERT INTO wallet_bindings (identity_id, wallet_address, bound_at, unbound_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (identity_id, wallet_address) DO UPDATE SET
					bound_at = excluded.bound_at,
					unbound_at = excluded.unbound_at`,
			dbtypes.DBEngineSqlite: `
				INSERT OR REPLACE INTO wallet_bindings (identity_id, wallet_address, bound_at, unbound_at)
				VALUES ($1, $2, $3, $4)`,
		}), binding.IdentityID, binding.WalletAddress, binding.BoundAt, binding.UnboundAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetUserIdentityByExternalId returns nil without error for unknown users.
func GetUserIdentityByExternalId(ctx context.Context, externalUserId string) (*dbtypes.UserIdentity, error) {
	identity := &dbtypes.UserIdentity{}
	err := ReaderDb.GetContext(ctx, identity, "SELECT identity_id, external_user_id, created_at FROM user_identities WHERE external_user_id = $1", externalUserId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// GetActiveWallets returns the wallet addresses currently bound to an identity.
func GetActiveWallets(ctx context.Context, identityId string) ([]string, error) {
	wallets := []string{}
	err := ReaderDb.SelectContext(ctx, &wallets, "SELECT wallet_address FROM wallet_bindings WHERE identity_id = $1 AND unbound_at IS NULL ORDER BY wallet_address ASC", identityId)
	if err != nil {
		logger.Errorf("Error while fetching active wallets: %v", err)
		return nil, err
	}
	return wallets, nil
}
