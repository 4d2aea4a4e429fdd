/*
Package apperr provides classified errors for control-plane operations.

Every error that crosses a package boundary in Switchboard carries a Kind, a
stable machine-readable classification that the API layer maps to an HTTP
status and clients can branch on without string matching. Wrapped causes are
preserved for logs; only the safe message travels to API callers.

# Kinds

	NOT_FOUND            the referenced record does not exist        404
	FORBIDDEN            team scope missing or not permitted         403
	INVALID              malformed or unacceptable input             400
	SHARDS_EXHAUSTED     no free collector shard for a new tenant    409
	PROVISIONING_FAILED  tenant storage could not be provisioned     502
	AGENT_MISCONFIGURED  a collector reported no shard identity      500
	INTERNAL             everything else                             500

# Usage

Creating and wrapping:

	return apperr.New(apperr.KindNotFound, "token not found: %s", id)

	if err := exec(ctx, ddl); err != nil {
		return apperr.Wrap(apperr.KindProvisioning, err, "create database failed")
	}

Branching on kind:

	if apperr.Is(err, apperr.KindShardsExhausted) {
		// tell the operator to grow the pool
	}

Mapping to a response:

	status := apperr.HTTPStatus(apperr.KindOf(err))
	body := apperr.Message(err) // safe message, wrapped cause omitted

Unknown errors classify as INTERNAL, so a forgotten classification fails
closed rather than leaking a cause string to an API caller.

# See Also

  - pkg/api for the error response envelope built on these kinds
  - pkg/client for the client-side reconstruction of kinds
*/
package apperr
