// Package journal records channel traffic to PostgreSQL for offline
// inspection. Envelopes are captured on a non-blocking buffer and written
// in batches; journaling never slows the channel down, and a full or
// closed buffer drops records rather than backpressuring the socket.
package journal
