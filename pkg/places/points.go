package places

// KatySearchPoints overlap to cover the Katy, TX metro area.
var KatySearchPoints = []SearchPoint{
	{Name: "Katy Downtown", Location: LatLng{Lat: 29.7858, Lng: -95.8245}},
	{Name: "Katy Mills", Location: LatLng{Lat: 29.7772, Lng: -95.7512}},
	{Name: "Cinco Ranch", Location: LatLng{Lat: 29.7419, Lng: -95.7669}},
	{Name: "Grand Parkway / I-10", Location: LatLng{Lat: 29.7838, Lng: -95.7910}},
	{Name: "Mason Road", Location: LatLng{Lat: 29.7550, Lng: -95.7445}},
	{Name: "Fulshear", Location: LatLng{Lat: 29.6930, Lng: -95.8991}},
	{Name: "Cross Creek Ranch", Location: LatLng{Lat: 29.7010, Lng: -95.8580}},
	{Name: "Westpark Tollway", Location: LatLng{Lat: 29.7250, Lng: -95.7250}},
}
