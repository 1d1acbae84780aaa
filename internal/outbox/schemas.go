package outbox

const challengeCompletedSchema = `{
  "type": "object",
  "title": "ChallengeCompleted",
  "properties": {
    "achievement_id": {"type": "string"},
    "user_id": {"type": "string"},
    "challenge_id": {"type": "string"},
    "challenge_slug": {"type": "string"},
    "enrollment_id": {"type": "string"},
    "reward": {"type": "string"},
    "badge": {"type": "string"},
    "completed_on": {"type": "string", "format": "date-time"}
  },
  "required": ["achievement_id", "user_id", "challenge_id", "challenge_slug", "enrollment_id", "completed_on"],
  "additionalProperties": false
}`

const workoutCompletedSchema = `{
  "type": "object",
  "title": "WorkoutCompleted",
  "properties": {
    "workout_id": {"type": "string"},
    "session_id": {"type": "string"},
    "user_id": {"type": "string"},
    "steps": {"type": "integer"},
    "calories": {"type": "integer"},
    "distance_meters": {"type": "number"},
    "duration_sec": {"type": "integer"},
    "started_at": {"type": "string", "format": "date-time"},
    "completed_at": {"type": "string", "format": "date-time"}
  },
  "required": ["workout_id", "session_id", "user_id", "steps", "started_at", "completed_at"],
  "additionalProperties": false
}`
