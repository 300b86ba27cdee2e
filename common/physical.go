package common

// All units are in metric:
// - Speed is in m/s
// - Distance is in meters
// - Time is in seconds

// EarthRadiusMean is the radius of the spherical Earth model
// used for haversine distances.
// Note that orb/geo uses the WGS84 equatorial radius (6378137) instead.
const EarthRadiusMean = 6371000.0

const SpeedOfDrivingAutobahn = 67.06  // or 241 km/h or 150 mph
const SpeedOfCommercialFlight = 250.0 // or 900 km/h
const SpeedOfSound = 343.0

// SpeedImplausibleGround is the speed (about 720 km/h) beyond which
// a jump between two fixes is taken to be a glitch rather than motion.
const SpeedImplausibleGround = 200.0
