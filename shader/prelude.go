package shader

// glslPrelude picks the pair of zoom-stop samples around t and mixes them.
const glslPrelude = `float evaluate_zoom_function_1(const vec4 values, const float t) {
    if (t < 1.0) {
        return mix(values[0], values[1], t);
    } else if (t < 2.0) {
        return mix(values[1], values[2], t - 1.0);
    } else {
        return mix(values[2], values[3], t - 2.0);
    }
}
vec2 evaluate_zoom_function_4(const vec2 value0, const vec2 value1, const vec2 value2, const vec2 value3, const float t) {
    if (t < 1.0) {
        return mix(value0, value1, t);
    } else if (t < 2.0) {
        return mix(value1, value2, t - 1.0);
    } else {
        return mix(value2, value3, t - 2.0);
    }
}
vec3 evaluate_zoom_function_4(const vec3 value0, const vec3 value1, const vec3 value2, const vec3 value3, const float t) {
    if (t < 1.0) {
        return mix(value0, value1, t);
    } else if (t < 2.0) {
        return mix(value1, value2, t - 1.0);
    } else {
        return mix(value2, value3, t - 2.0);
    }
}
vec4 evaluate_zoom_function_4(const vec4 value0, const vec4 value1, const vec4 value2, const vec4 value3, const float t) {
    if (t < 1.0) {
        return mix(value0, value1, t);
    } else if (t < 2.0) {
        return mix(value1, value2, t - 1.0);
    } else {
        return mix(value2, value3, t - 2.0);
    }
}
`

// wgslPrelude has no overloading, so the multi-component variants carry
// their vector width in the name.
const wgslPrelude = `fn evaluate_zoom_function_1(values: vec4<f32>, t: f32) -> f32 {
    var v: f32;
    if (t < 1.0) {
        v = mix(values.x, values.y, t);
    } else if (t < 2.0) {
        v = mix(values.y, values.z, t - 1.0);
    } else {
        v = mix(values.z, values.w, t - 2.0);
    }
    return v;
}

fn evaluate_zoom_function_4_vec2(value0: vec2<f32>, value1: vec2<f32>, value2: vec2<f32>, value3: vec2<f32>, t: f32) -> vec2<f32> {
    var v: vec2<f32>;
    if (t < 1.0) {
        v = mix(value0, value1, vec2<f32>(t));
    } else if (t < 2.0) {
        v = mix(value1, value2, vec2<f32>(t - 1.0));
    } else {
        v = mix(value2, value3, vec2<f32>(t - 2.0));
    }
    return v;
}

fn evaluate_zoom_function_4_vec3(value0: vec3<f32>, value1: vec3<f32>, value2: vec3<f32>, value3: vec3<f32>, t: f32) -> vec3<f32> {
    var v: vec3<f32>;
    if (t < 1.0) {
        v = mix(value0, value1, vec3<f32>(t));
    } else if (t < 2.0) {
        v = mix(value1, value2, vec3<f32>(t - 1.0));
    } else {
        v = mix(value2, value3, vec3<f32>(t - 2.0));
    }
    return v;
}

fn evaluate_zoom_function_4_vec4(value0: vec4<f32>, value1: vec4<f32>, value2: vec4<f32>, value3: vec4<f32>, t: f32) -> vec4<f32> {
    var v: vec4<f32>;
    if (t < 1.0) {
        v = mix(value0, value1, vec4<f32>(t));
    } else if (t < 2.0) {
        v = mix(value1, value2, vec4<f32>(t - 1.0));
    } else {
        v = mix(value2, value3, vec4<f32>(t - 2.0));
    }
    return v;
}
`
