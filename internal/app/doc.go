// Package app provides the application service layer.
//
// Each service orchestrates one area of the product (profiles, messaging,
// bookings, parties, right-now posts, photos, billing) over domain
// interfaces. HTTP handlers call into it; it never sees echo or pgx types.
// Input validation failures are returned as platform validation errors;
// everything else surfaces as domain sentinel errors.
package app
