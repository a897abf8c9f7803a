// Package reel analyzes the sentiment of uploaded videos on behalf of
// API-key holders, charging each analysis against a monthly quota.
//
// Reel is a library first. Import it into a Go service, or run the bundled
// daemon in cmd/reel. It provides:
//
//   - API key authentication with keyed BLAKE3 hashes (plaintext is never stored)
//   - Presigned direct uploads to S3-compatible storage
//   - An atomic per-account monthly quota (Postgres, SQLite, MongoDB or Redis)
//   - Storage verification before any model time is spent
//   - Inference through SageMaker or a plain HTTP endpoint
//   - Plugin hooks for audit trails and metrics
//
// # Quick Start
//
//	store, err := postgres.Open(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := reel.New(store,
//	    reel.WithVerifier(s3store),
//	    reel.WithPresigner(s3store),
//	    reel.WithInvoker(sagemaker.New(client, "sentiment-endpoint")),
//	    reel.WithBucket("videos"),
//	)
//	if err := r.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Stop()
//
//	acct, secret, err := r.ProvisionAccount(ctx, "acme", 100)
//
// A client first asks for an upload URL, PUTs the video there, then asks
// for the analysis:
//
//	up, err := r.IssueUpload(ctx, secret, ".mp4")
//	// client uploads to up.URL
//	result, err := r.Analyze(ctx, secret, up.Key)
//
// # Analysis order
//
// Analyze checks, in order: the credential, the key, the asset record,
// ownership, whether the asset was already analyzed, the quota, and the
// stored object. A unit of quota is charged only once the caller has proven
// ownership of a fresh asset, and is kept even if storage verification or
// inference fails afterwards.
//
// # Errors
//
// Every error returned by Analyze wraps one sentinel (ErrUnauthorized,
// ErrQuotaExceeded, ...). HTTPStatus and PublicMessage map an error to the
// response a caller should see; collaborator details are logged, never
// returned.
//
// # TypeID
//
// Entities use TypeIDs:
//
//	acct_01h2xcejqtf2nbrexx3vqjhp41   // Account
//	akey_01h2xcejqtf2nbrexx3vqjhp41   // API key
//	asset_01h455vb4pex5vsknk084sn02q  // Asset
package reel
